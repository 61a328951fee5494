package main

import "github.com/rafaelccorrea/back-plugin-sub000/cmd"

func main() {
	cmd.Execute()
}
