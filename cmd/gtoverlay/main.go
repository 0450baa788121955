// Command gtoverlay serves the weighted raster overlay HTTP API.
package main

import "github.com/MeKo-Tech/gtoverlay/internal/cmd"

func main() {
	cmd.Execute()
}
