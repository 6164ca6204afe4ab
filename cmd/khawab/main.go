// Khawab interprets dreams with a remote language model and runs the edge
// proxy that fronts the inference server.
//
// Usage:
//
//	# Run the edge proxy
//	khawab serve --config khawab.yaml
//
//	# Stream an interpretation
//	khawab interpret "I was flying over a river"
//
//	# Interpret in Urdu and keep it in the history
//	khawab interpret --lang ur --save < dream.txt
//
//	# Browse saved interpretations
//	khawab history list
package main

import "os"

func main() {
	os.Exit(Execute())
}
