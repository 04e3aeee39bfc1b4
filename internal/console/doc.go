// Package console prints download progress for the sra-dl command.
package console
