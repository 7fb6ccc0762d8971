package main

import (
	"github.com/CodeMonkeyCybersecurity/glauth-operator/cmd"
)

func main() {
	cmd.Execute()
}
