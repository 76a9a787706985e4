package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dd0wney/cluso-dra/pkg/archive"
)

func main() {
	file := flag.String("file", "", "Assessment JSON written by dra -out")
	dir := flag.String("dir", "", "Archive directory to browse")
	flag.Parse()

	var src source
	switch {
	case *file != "":
		src = fileSource(*file)
	case *dir != "":
		store, err := archive.NewFileStore(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dra-tui: %v\n", err)
			os.Exit(1)
		}
		src = storeSource{store: store}
	default:
		fmt.Fprintln(os.Stderr, "dra-tui: one of -file or -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	m, err := initialModel(context.Background(), src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dra-tui: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "dra-tui: %v\n", err)
		os.Exit(1)
	}
}
