package main

import "github.com/harrisonrobin/gradesync/cmd"

func main() {
	cmd.Execute()
}
