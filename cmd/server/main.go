// Package main is the entry point for the booking calendar sync service.
package main

func main() {
	Execute()
}
