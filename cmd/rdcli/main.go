// Command rdcli is a small interactive/batch command-line client for the
// redis package, analogous to redis-cli: a consumer of the core's
// SendCommand surface and event stream, never part of it.
package main

func main() {
	Execute()
}
