package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// LoadLabels reads the class names used to train the Model from the given
// text file.  It should contain one label per line, in heat map channel
// order.  Blank lines and lines starting with # are skipped.
func LoadLabels(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, errors.Wrap(err, "error opening labels file")
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		labels = append(labels, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading labels file")
	}

	return labels, nil
}
