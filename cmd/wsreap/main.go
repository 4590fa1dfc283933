// wsreap - idle AWS WorkSpaces lifecycle engine
// Warn. Terminate. Notify.
package main

func main() {
	Execute()
}
