// Command savectl inspects and maintains save files: it dumps and compacts
// bolt saves, backs them up to object storage and pushes them to MySQL
// save slots.
package main

func main() {
	Execute()
}
