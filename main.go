package main

import "github.com/frahmantamala/trip-expense/cmd"

func main() {
	cmd.Execute()
}
