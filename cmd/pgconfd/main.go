package main

import "os"

func main() {
	cmd := RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
