// Package storage decides where generated dossiers are persisted and
// persists them there: an S3-compatible bucket when fully configured,
// otherwise a local folder served back through the download route.
package storage

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Getter is satisfied by *viper.Viper.
type Getter interface {
	GetString(key string) string
}

// Config is the resolved object storage configuration. Every field is
// optional; see IsEnabled.
type Config struct {
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

const (
	localDossierFolder = "Dossiers_Personalizados_PlayaViva"
	localDossierDirKey = "LOCAL_DOSSIER_DIR"
)

var (
	endpointKeys  = []string{"S3_Endpoint", "S3_ENDPOINT"}
	bucketKeys    = []string{"S3_Bucket", "S3_BUCKET", "S3_BUCKET_NAME"}
	regionKeys    = []string{"S3_Region_Code", "S3_REGION_CODE"}
	accessKeyKeys = []string{"S3_Access_Key_ID", "S3_ACCESS_KEY_ID"}
	secretKeys    = []string{"S3_Secret_Access_Key", "S3_SECRET_ACCESS_KEY"}

	whitespaceRun   = regexp.MustCompile(`\s+`)
	invalidBucketCh = regexp.MustCompile(`(?i)[^a-z0-9.-]`)
	dashRun         = regexp.MustCompile(`-+`)
)

// FirstOf returns the first non-empty value among keys.
func FirstOf(g Getter, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(g.GetString(k)); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeBucketName trims slashes and folds a free-form bucket name into
// the characters S3 accepts.
func NormalizeBucketName(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}

	trimmed = whitespaceRun.ReplaceAllString(trimmed, "-")
	trimmed = invalidBucketCh.ReplaceAllString(trimmed, "-")
	trimmed = dashRun.ReplaceAllString(trimmed, "-")
	return strings.ToLower(trimmed)
}

// splitEndpoint pulls the bucket out of a path-style
// (https://host/bucket) or virtual-hosted-style (https://bucket.host)
// endpoint when no bucket was configured explicitly.
func splitEndpoint(rawEndpoint, bucket string) (string, string) {
	if rawEndpoint == "" || bucket != "" {
		return rawEndpoint, bucket
	}

	u, err := url.Parse(rawEndpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawEndpoint, bucket
	}

	if first, _, _ := strings.Cut(strings.TrimLeft(u.Path, "/"), "/"); first != "" {
		return u.Scheme + "://" + u.Host, first
	}

	labels := strings.Split(u.Hostname(), ".")
	if len(labels) > 3 {
		host := strings.Join(labels[1:], ".")
		if port := u.Port(); port != "" {
			host += ":" + port
		}
		return u.Scheme + "://" + host, labels[0]
	}

	return rawEndpoint, bucket
}

// ResolveConfig reads the object storage settings, accepting the legacy
// spellings of every key.
func ResolveConfig(g Getter) Config {
	endpoint, bucket := splitEndpoint(
		FirstOf(g, endpointKeys...),
		NormalizeBucketName(FirstOf(g, bucketKeys...)),
	)

	return Config{
		Endpoint:        endpoint,
		Bucket:          bucket,
		Region:          FirstOf(g, regionKeys...),
		AccessKeyID:     FirstOf(g, accessKeyKeys...),
		SecretAccessKey: FirstOf(g, secretKeys...),
	}
}

// IsEnabled is the only switch between object storage and local storage.
func IsEnabled(c Config) bool {
	return c.Endpoint != "" &&
		c.Bucket != "" &&
		c.Region != "" &&
		c.AccessKeyID != "" &&
		c.SecretAccessKey != ""
}

// LocalDossierDir returns the absolute folder local dossiers are written to.
func LocalDossierDir(g Getter) string {
	if dir := strings.TrimSpace(g.GetString(localDossierDirKey)); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
		return dir
	}

	if strings.EqualFold(g.GetString("APP_ENV"), "production") {
		return filepath.Join(os.TempDir(), "dossiers")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), localDossierFolder)
	}

	return filepath.Join(home, "Documents", localDossierFolder)
}
