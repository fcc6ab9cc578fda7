package main

import (
	"fmt"
	"os"

	"github.com/md-rashed-zaman/slotbook/libs/config"
)

func main() {
	config.LoadDotenv()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
