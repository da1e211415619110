package main

import "github.com/LovationAdmin/expensewise-api/cmd"

func main() {
	cmd.Execute()
}
