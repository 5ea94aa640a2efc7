// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/modcrate/modcrate/cmd/modcrate"

func main() {
	cmd.Execute()
}
