package pathdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

const (
	dataBucketName = "data"
	metaBucketName = "meta"

	// DefaultDataDir is where persistent collections live unless Options.DataDir says otherwise.
	DefaultDataDir = "./data"
)

// Options configures a Collection. The zero value of every field is the
// default, so `Options{Name: "users"}` is a complete configuration.
type Options struct {
	// Name identifies the collection and names its backing table. It must be
	// a safe identifier: no path separators, no reserved device names.
	Name string

	// DataDir is the filesystem root for persistent storage. Default "./data".
	DataDir string

	// InMemory makes the collection transient: no disk persistence happens
	// regardless of Name, and the data vanishes with the process.
	InMemory bool

	// StrictPaths disables auto-creation of missing intermediate containers
	// during path writes; such writes fail with KindPathNotFound instead.
	StrictPaths bool

	// AutoEnsure, when non-nil, makes Get and GetAt transparently ensure this
	// default value instead of reporting a missing key.
	AutoEnsure any

	// Serialize and Deserialize optionally transform values around the
	// default encoding. Both must be synchronous.
	Serialize   TransformFunc
	Deserialize TransformFunc

	// Storage is passed through to the backing engine.
	Storage StorageOptions

	// Logf is used for occasional diagnostics. Nil disables logging.
	Logf func(format string, args ...any)
}

// StorageOptions is passthrough configuration for the Bolt backend.
// Ignored for in-memory collections.
type StorageOptions struct {
	// NoSync skips fsync on commit. Useful in tests.
	NoSync bool
	// Timeout bounds the wait for the file lock. Default 10s.
	Timeout time.Duration
	// InitialMmapSize presizes the mmap region.
	InitialMmapSize int
}

// Collection is a named, uniquely-keyed set of entries backed by one durable
// table. All methods are safe for concurrent use within a single process;
// each one runs as a single storage transaction.
type Collection struct {
	name        string
	stor        storage
	codec       codec
	strictPaths bool
	autoEnsure  any
	logf        func(format string, args ...any)

	mu     sync.Mutex
	closed bool
}

// Open creates or opens the collection described by opt.
func Open(opt Options) (*Collection, error) {
	name, err := sanitizeName(opt.Name)
	if err != nil {
		return nil, err
	}

	var autoEnsure any
	if opt.AutoEnsure != nil {
		autoEnsure, err = normalizeValue(opt.AutoEnsure)
		if err != nil {
			return nil, err
		}
	}

	var stor storage
	if opt.InMemory {
		stor = newMemStorage()
	} else {
		dataDir := opt.DataDir
		if dataDir == "" {
			dataDir = DefaultDataDir
		}
		if err := os.MkdirAll(dataDir, 0777); err != nil {
			return nil, opErrf(KindStorageIO, "", "", err, "creating data dir %s", dataDir)
		}
		bopt := *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.Storage.Timeout != 0 {
			bopt.Timeout = opt.Storage.Timeout
		}
		bopt.NoSync = opt.Storage.NoSync
		if opt.Storage.InitialMmapSize != 0 {
			bopt.InitialMmapSize = opt.Storage.InitialMmapSize
		}
		path := filepath.Join(dataDir, name+".db")
		bdb, err := bbolt.Open(path, 0666, &bopt)
		if err != nil {
			return nil, opErrf(KindStorageIO, "", "", err, "opening %s", path)
		}
		stor = newBoltStorage(bdb)
	}

	c := &Collection{
		name:        name,
		stor:        stor,
		codec:       codec{serialize: opt.Serialize, deserialize: opt.Deserialize},
		strictPaths: opt.StrictPaths,
		autoEnsure:  autoEnsure,
		logf:        opt.Logf,
	}
	err = c.update(func(tx storageTx) error {
		if _, err := tx.CreateBucket(c.name, dataBucketName); err != nil {
			return opErrf(KindStorageIO, "", "", err, "creating data bucket")
		}
		if _, err := tx.CreateBucket(c.name, metaBucketName); err != nil {
			return opErrf(KindStorageIO, "", "", err, "creating meta bucket")
		}
		return nil
	})
	if err != nil {
		stor.Close()
		return nil, err
	}
	if c.logf != nil {
		if opt.InMemory {
			c.logf("pathdb: opened transient collection %s", name)
		} else {
			c.logf("pathdb: opened collection %s in %s", name, opt.DataDir)
		}
	}
	return c, nil
}

// Multi opens one collection per name, sharing all other options.
// Either every collection opens, or none does.
func Multi(names []string, opt Options) (map[string]*Collection, error) {
	out := make(map[string]*Collection, len(names))
	for _, name := range names {
		o := opt
		o.Name = name
		c, err := Open(o)
		if err != nil {
			for _, prev := range out {
				prev.Close()
			}
			return nil, err
		}
		out[name] = c
	}
	return out, nil
}

// Name returns the collection identifier.
func (c *Collection) Name() string {
	return c.name
}

// Close releases the backing storage. The collection becomes unusable; every
// later operation fails with KindStorageClosed. Closing twice is a no-op.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.stor.Close(); err != nil {
		return opErrf(KindStorageIO, "", "", err, "closing storage")
	}
	return nil
}

func (c *Collection) begin(writable bool) (storageTx, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, opErrf(KindStorageClosed, "", "", nil, "collection %s is closed", c.name)
	}
	tx, err := c.stor.BeginTx(writable)
	if err != nil {
		return nil, opErrf(KindStorageIO, "", "", err, "starting transaction")
	}
	return tx, nil
}

// view runs f inside a read-only transaction.
func (c *Collection) view(f func(tx storageTx) error) error {
	tx, err := c.begin(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

// update runs f inside a writable transaction and commits it if f succeeds.
// On any error the prior state is unchanged.
func (c *Collection) update(f func(tx storageTx) error) error {
	tx, err := c.begin(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return opErrf(KindStorageIO, "", "", err, "committing transaction")
	}
	return nil
}

func (c *Collection) data(tx storageTx) storageBucket {
	b := tx.Bucket(c.name, dataBucketName)
	if b == nil {
		panic(fmt.Errorf("pathdb: data bucket of %s is missing", c.name))
	}
	return b
}

func (c *Collection) meta(tx storageTx) storageBucket {
	b := tx.Bucket(c.name, metaBucketName)
	if b == nil {
		panic(fmt.Errorf("pathdb: meta bucket of %s is missing", c.name))
	}
	return b
}

var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

// sanitizeName validates a collection name for use as a table and file name.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", opErrf(KindKeyType, "", "", nil, "collection name must not be empty")
	}
	if strings.ContainsAny(name, `/\:*?"<>|`) || strings.ContainsRune(name, 0) {
		return "", opErrf(KindKeyType, "", "", nil, "collection name %q contains unsafe characters", name)
	}
	if name == "." || name == ".." {
		return "", opErrf(KindKeyType, "", "", nil, "collection name %q is not allowed", name)
	}
	if reservedNames[strings.ToLower(name)] {
		return "", opErrf(KindKeyType, "", "", nil, "collection name %q is a reserved device name", name)
	}
	return name, nil
}
