package runinfo

import (
	"context"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets
)

// isBlobURL reports whether p is a URL with a registered bucket scheme.
// file:// and gs:// are registered by this package.
// Plain paths, including Windows drive letters, are not.
func isBlobURL(p string) bool {
	u, err := url.Parse(p)
	if err != nil || len(u.Scheme) < 2 {
		return false
	}
	return blob.DefaultURLMux().ValidBucketScheme(u.Scheme)
}

// splitBlobURL splits an object URL into its bucket URL and object key.
//
//	gs://bucket/dir/PRJNA1.csv   -> gs://bucket, dir/PRJNA1.csv
//	file:///data/dir/PRJNA1.csv  -> file:///data/dir, PRJNA1.csv
func splitBlobURL(rawURL string) (bucketURL, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}

	if u.Scheme == "file" {
		dir, file := path.Split(u.Path)
		b := *u
		b.Path = strings.TrimSuffix(dir, "/")
		if b.Path == "" {
			b.Path = "/"
		}
		return b.String(), file, nil
	}

	key = strings.TrimPrefix(u.Path, "/")
	b := *u
	b.Path = ""
	return b.String(), key, nil
}

func readBlob(ctx context.Context, rawURL string) ([]byte, error) {
	bucketURL, key, err := splitBlobURL(rawURL)
	if err != nil {
		return nil, err
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()

	return bucket.ReadAll(ctx, key)
}
