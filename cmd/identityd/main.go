// Command identityd is the identity and access microservice entry point.
package main

import "github.com/aegisgate/identityd/cmd/identityd/cmd"

func main() {
	cmd.Execute()
}
