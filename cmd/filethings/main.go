package main

import "filethings/internal/cli"

func main() {
	cli.Execute()
}
