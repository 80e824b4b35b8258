// Command qzsyncd runs the Qzone-to-chat mirror daemon and its maintenance
// subcommands.
package main
