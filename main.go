package main

import "github.com/anomstream/anomalyd/cmd"

func main() {
	cmd.Execute()
}
