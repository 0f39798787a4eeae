package main

import "github.com/maastricht-university/datecoach-analytics/cli"

func main() {
	cli.Execute()
}
