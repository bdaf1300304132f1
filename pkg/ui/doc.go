// Package ui prints fetch progress and summaries to the terminal.
package ui
