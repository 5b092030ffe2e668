package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%s %v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
