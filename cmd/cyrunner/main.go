// Command cyrunner records Cypress-style tests and replays them in a browser.
package main

import "github.com/devicelab-dev/cyrunner/pkg/cli"

func main() {
	cli.Execute()
}
