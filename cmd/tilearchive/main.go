package main

import "github.com/MeKo-Tech/tilearchive/internal/cmd"

func main() {
	cmd.Execute()
}
