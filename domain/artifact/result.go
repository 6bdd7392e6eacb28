package artifact

import "strings"

// UploadResult describes a stored artifact.
type UploadResult struct {
	// Size is the archive size in bytes.
	Size int64 `json:"size"`

	// URL is where the object is addressed. It does not imply the object
	// is publicly readable.
	URL string `json:"url"`

	// Key is the storage key the archive was written to.
	Key Key `json:"key"`

	// Digest is the blake3 digest of the archive bytes.
	Digest string `json:"digest,omitempty"`

	// Entries is the number of records written to the archive.
	Entries int `json:"entries"`

	// Skipped lists source paths that vanished before they were archived.
	Skipped []string `json:"skipped,omitempty"`

	// UploadID correlates logs and object metadata for this upload.
	UploadID string `json:"upload_id,omitempty"`
}

// Partial reports whether some entries were skipped.
func (r UploadResult) Partial() bool {
	return len(r.Skipped) > 0
}

// ComposeURL builds https://<bucket>.<endpoint>/<key>.
func ComposeURL(bucket, endpoint string, key Key) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	return "https://" + bucket + "." + endpoint + "/" + string(key)
}
