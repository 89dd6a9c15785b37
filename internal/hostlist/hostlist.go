// Package hostlist loads the list of target hosts from a hosts file.
//
// The canonical format is a CSV file with rows of
// "name,address,port,username,key-or-#[,tags]". A YAML inventory is accepted
// as an alternative, selected by file extension.
package hostlist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/cwt/hydra/internal/errors"
	"github.com/cwt/hydra/internal/logging"
)

// UseDefaultKey is the key-reference sentinel meaning "use the default key or
// the conventional fallback chain".
const UseDefaultKey = "#"

// Host is one target machine's connection parameters and tags.
// Immutable once parsed; Name is the unique key for color assignment and
// output-queue lookup.
type Host struct {
	Name     string
	Address  string
	Port     int
	Username string
	KeyRef   string // key path, password, "#", or empty
	Tags     []string
}

// Load reads a hosts file and returns the eligible hosts in file order along
// with the longest host name, for prompt alignment. Malformed rows are
// skipped with a diagnostic; the returned error is reserved for file-level
// failures.
//
// tagFilter is a comma- or colon-delimited tag set; when non-empty, a host is
// included only if its tag set intersects it.
func Load(path, tagFilter string, log *logging.Logger) ([]Host, int, error) {
	var (
		hosts []Host
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		hosts, err = loadYAML(path, log)
	default:
		hosts, err = loadCSV(path, log)
	}
	if err != nil {
		return nil, 0, err
	}

	hosts = filterByTags(hosts, tagFilter)

	maxName := 0
	for _, h := range hosts {
		if len(h.Name) > maxName {
			maxName = len(h.Name)
		}
	}

	if log != nil {
		log.LogHostsLoaded(path, len(hosts))
	}

	return hosts, maxName, nil
}

// loadCSV parses the delimited hosts format. Rows whose name begins with '#'
// are comments; blank rows are ignored; rows with a bad port are skipped with
// a diagnostic carrying the 1-based row number; rows with fewer than four
// fields are silently ignored as incomplete.
func loadCSV(path string, log *logging.Logger) ([]Host, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hosts file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var hosts []Host
	row := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			skipRow(path, row, err, log)
			continue
		}
		if len(record) == 0 || strings.HasPrefix(record[0], "#") {
			continue
		}
		if len(record) < 4 {
			continue // incomplete row
		}

		port, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			skipRow(path, row, err, log)
			continue
		}

		h := Host{
			Name:     record[0],
			Address:  record[1],
			Port:     port,
			Username: record[3],
		}
		if len(record) > 4 {
			h.KeyRef = record[4]
		}
		if len(record) > 5 {
			h.Tags = splitTags(record[5], ":")
		}

		hosts = append(hosts, h)
	}

	return hosts, nil
}

// yamlHost mirrors one entry of the YAML inventory format.
type yamlHost struct {
	Address string   `yaml:"address"`
	Port    int      `yaml:"port"`
	User    string   `yaml:"user"`
	Key     string   `yaml:"key"`
	Tags    []string `yaml:"tags"`
}

// yamlInventory is the top-level YAML inventory document.
type yamlInventory struct {
	Hosts map[string]yamlHost `yaml:"hosts"`
}

// loadYAML parses the YAML inventory alternative. Entries are returned in
// name order since the document gives no row order to preserve.
func loadYAML(path string, log *logging.Logger) ([]Host, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hosts file %s: %w", path, err)
	}

	var inv yamlInventory
	if err := yaml.Unmarshal(content, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse hosts file %s: %w", path, err)
	}

	names := make([]string, 0, len(inv.Hosts))
	for name := range inv.Hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	hosts := make([]Host, 0, len(names))
	for i, name := range names {
		entry := inv.Hosts[name]
		if entry.Address == "" {
			skipRow(path, i+1, fmt.Errorf("host %s: missing address", name), log)
			continue
		}
		port := entry.Port
		if port == 0 {
			port = 22
		}
		hosts = append(hosts, Host{
			Name:     name,
			Address:  entry.Address,
			Port:     port,
			Username: entry.User,
			KeyRef:   entry.Key,
			Tags:     entry.Tags,
		})
	}

	return hosts, nil
}

func skipRow(path string, row int, cause error, log *logging.Logger) {
	parseErr := &apperrors.ParseError{File: path, Row: row, Err: cause}
	if log != nil {
		log.LogRowSkipped(path, row, parseErr)
	}
}

// filterByTags keeps hosts whose tag set intersects the filter set. An empty
// filter keeps everything.
func filterByTags(hosts []Host, tagFilter string) []Host {
	filter := splitTags(tagFilter, ",:")
	if len(filter) == 0 {
		return hosts
	}

	want := make(map[string]bool, len(filter))
	for _, tag := range filter {
		want[tag] = true
	}

	var selected []Host
	for _, h := range hosts {
		for _, tag := range h.Tags {
			if want[tag] {
				selected = append(selected, h)
				break
			}
		}
	}

	return selected
}

// splitTags splits on any of the given separator characters and drops empty
// elements.
func splitTags(s, seps string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})

	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			tags = append(tags, f)
		}
	}

	return tags
}
