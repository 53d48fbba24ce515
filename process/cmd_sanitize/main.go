package main

import "duckpay/process/sanitize"

func main() {
	sanitize.Run()
}
