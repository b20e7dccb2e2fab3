// Command adasa is a local process supervisor daemon and its CLI client, an
// alternative to PM2/supervisord for long-running scripts.
package main

func main() {
	Execute()
}
