package main

import "book-review/cmd"

func main() {
	cmd.Execute()
}
