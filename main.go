package main

import "github.com/zennest/payment-service/cmd"

func main() {
	cmd.Execute()
}
