// Command manualrag serves and maintains a retrieval-augmented question
// answering index over equipment manuals.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
