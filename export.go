package pathdb

import (
	"encoding/json"
	"time"

	"golang.org/x/mod/semver"
)

// ExportVersion is the format version written by Export. Import accepts
// documents of this major version or older, and rejects newer ones.
const ExportVersion = "v1.0.0"

// The envelope is JSON for portability; entry values are the encoded bytes
// exactly as stored (base64 in the JSON form), so custom serializers
// round-trip without being invoked.
type exportDoc struct {
	Version    string        `json:"version"`
	Name       string        `json:"name"`
	ExportedAt time.Time     `json:"exportedAt"`
	Entries    []exportEntry `json:"entries"`
}

type exportEntry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Export serializes the whole collection into a versioned document.
func (c *Collection) Export() (string, error) {
	doc := exportDoc{
		Version:    ExportVersion,
		Name:       c.name,
		ExportedAt: time.Now().UTC(),
		Entries:    []exportEntry{},
	}
	err := c.view(func(tx storageTx) error {
		cur := c.data(tx).Cursor()
		for k, raw := cur.First(); k != nil; k, raw = cur.Next() {
			e := exportEntry{Key: string(k), Value: append([]byte(nil), raw...)}
			doc.Entries = append(doc.Entries, e)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(&doc)
	if err != nil {
		return "", opErrf(KindNotSerializable, "", "", err, "encoding export document")
	}
	return string(data), nil
}

// Import loads a document produced by Export. With clear, the collection is
// emptied first; then each entry is written unless overwrite is false and
// the key already exists. Documents with a newer version fail with
// KindIncompatibleVersion; equal or older compatible versions are accepted.
func (c *Collection) Import(document string, overwrite, clear bool) error {
	var doc exportDoc
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return opErrf(KindNotSerializable, "", "", err, "parsing import document")
	}
	ver := doc.Version
	if !semver.IsValid(ver) {
		return opErrf(KindIncompatibleVersion, "", "", nil, "document version %q is not a valid version", ver)
	}
	if semver.Compare(ver, ExportVersion) > 0 {
		return opErrf(KindIncompatibleVersion, "", "", nil, "document version %s is newer than supported %s", ver, ExportVersion)
	}
	return c.update(func(tx storageTx) error {
		if clear {
			if err := tx.DeleteBucket(c.name, dataBucketName); err != nil {
				return opErrf(KindStorageIO, "", "", err, "clearing collection")
			}
			if _, err := tx.CreateBucket(c.name, dataBucketName); err != nil {
				return opErrf(KindStorageIO, "", "", err, "clearing collection")
			}
		}
		data := c.data(tx)
		for _, e := range doc.Entries {
			kb := []byte(e.Key)
			if !overwrite && data.Get(kb) != nil {
				continue
			}
			if err := data.Put(kb, e.Value); err != nil {
				return opErrf(KindStorageIO, e.Key, "", err, "importing entry")
			}
		}
		return nil
	})
}
