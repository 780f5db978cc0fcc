package main

import (
	"github.com/ThomasPluck/Hdl21/cmd"
)

func main() {
	cmd.Execute()
}
