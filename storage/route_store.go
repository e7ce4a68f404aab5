package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"smiroute/routing"
	"smiroute/topology"

	log "github.com/sirupsen/logrus"
)

const RoutesFileName = "routes.json"

// FPGARecord describes one device of the registry
type FPGARecord struct {
	Key      string `json:"key"`
	Program  string `json:"program"`
	Channels int    `json:"channels"`
}

// RouteRecord is one source -> destination route; hops include both ends
type RouteRecord struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Hops        []string `json:"hops"`
}

// RouteDocument is the persisted form of a routing context
type RouteDocument struct {
	FPGAs  []FPGARecord  `json:"fpgas"`
	Routes []RouteRecord `json:"routes"`
}

// NewRouteDocument captures every route of ctx in a stable order, sorted by
// source then destination channel.
func NewRouteDocument(ctx *routing.Context) *RouteDocument {
	doc := &RouteDocument{}
	for _, f := range ctx.FPGAs() {
		doc.FPGAs = append(doc.FPGAs, FPGARecord{
			Key:      string(f.Key),
			Program:  f.Program.String(),
			Channels: len(f.Channels),
		})
	}

	table := ctx.Routes()
	sources := ctx.Graph().Nodes()
	for _, src := range sources {
		row := table[src]
		destinations := make([]topology.Channel, 0, len(row))
		for dst := range row {
			destinations = append(destinations, dst)
		}
		sort.Slice(destinations, func(i, j int) bool { return destinations[i].Less(destinations[j]) })

		for _, dst := range destinations {
			path := row[dst]
			hops := make([]string, len(path))
			for i, c := range path {
				hops[i] = c.String()
			}
			doc.Routes = append(doc.Routes, RouteRecord{
				Source:      src.String(),
				Destination: dst.String(),
				Hops:        hops,
			})
		}
	}
	return doc
}

// RouteStore keeps the route table of a fabric on disk.
type RouteStore struct {
	dataDir    string
	routesFile string
	routesHash string
	lock       sync.RWMutex
}

func NewRouteStore(dataDir string) (*RouteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create route store directory %s: %w", dataDir, err)
	}
	store := &RouteStore{
		dataDir:    dataDir,
		routesFile: filepath.Join(dataDir, RoutesFileName),
	}
	hash, err := calculateFileMD5(store.routesFile)
	if err != nil {
		log.Warningf("NewRouteStore: routes file hash failed, err: %v", err)
	}
	store.routesHash = hash
	return store, nil
}

// Path returns the location of the routes file
func (s *RouteStore) Path() string {
	return s.routesFile
}

// Hash returns the md5 of the routes file as last written or read, "" if none
func (s *RouteStore) Hash() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.routesHash
}

// Save writes doc unless the file already holds identical content.
// It reports whether the file changed.
func (s *RouteStore) Save(doc *RouteDocument) (bool, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal routes: %w", err)
	}
	sum := md5.Sum(data)
	hash := hex.EncodeToString(sum[:])

	s.lock.Lock()
	defer s.lock.Unlock()

	if hash == s.routesHash {
		log.Infof("Save: routes unchanged, hash: %s", hash)
		return false, nil
	}
	if err := os.WriteFile(s.routesFile, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write routes file: %w", err)
	}
	s.routesHash = hash
	log.Infof("Save: wrote %d routes to %s, hash: %s", len(doc.Routes), s.routesFile, hash)
	return true, nil
}

// Load reads the routes file back
func (s *RouteStore) Load() (*RouteDocument, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, err := os.ReadFile(s.routesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}
	var doc RouteDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal routes file %s: %w", s.routesFile, err)
	}
	return &doc, nil
}

func calculateFileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
