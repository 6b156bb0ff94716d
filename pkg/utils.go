package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
)

// rootMarkers identify the project root, in order of preference
var rootMarkers = []string{"extbuild.toml", "package.json"}

// FindProjectRoot walks up from start until it finds a directory containing one of the root markers
func FindProjectRoot(start string) (string, error) {
	mypath, err := filepath.Abs(start)
	if err != nil {
		return "", eris.Wrapf(err, "Failed to resolve %s", start)
	}

	for {
		for _, marker := range rootMarkers {
			_, err := os.Stat(filepath.Join(mypath, marker))
			if err == nil {
				return mypath, nil
			}

			if !eris.Is(err, os.ErrNotExist) {
				return "", eris.Wrap(err, "Error ocurred while searching for project root")
			}
		}

		nextPath := filepath.Dir(mypath)
		if mypath == nextPath {
			break
		}
		mypath = nextPath
	}

	return "", eris.New("Project root not found")
}

// Output receives the headings printed by the Print* functions
var Output io.Writer = os.Stdout

// Colorize formats the headings. Set Colorize.Disable to print plain text.
var Colorize = colorstring.Colorize{
	Colors: colorstring.DefaultColors,
	Reset:  true,
}

func PrintTask(msg string) {
	fmt.Fprint(Output, Colorize.Color("[blue][bold]==>[default] ")+msg+"\n")
}

func PrintSubtask(msg string) {
	fmt.Fprint(Output, Colorize.Color("[green][bold]  ->[reset] ")+msg+"\n")
}

func PrintError(msg string) {
	fmt.Fprint(Output, Colorize.Color("[red][bold]  ->[reset] ")+msg+"\n")
}
