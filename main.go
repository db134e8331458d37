package main

import "github.com/quocvuong92/chatybot/cmd"

func main() {
	cmd.Execute()
}
