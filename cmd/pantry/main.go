// Pantry is the command-line front end for the dashboard data providers.
package main

import "github.com/mesh-intelligence/pantry/internal/cli"

func main() {
	cli.Execute()
}
