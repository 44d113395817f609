package main

import "github.com/JustJay7/court-data-service/cmd/server/cmd"

func main() {
	cmd.Execute()
}
