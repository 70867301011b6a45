package main

import "github.com/atikulmunna/logsieve/internal/cmd"

func main() {
	cmd.Execute()
}
