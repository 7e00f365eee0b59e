package main

import (
	"os"

	"github.com/alexbacchin/awsconnect/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
