package storage

import (
	"path"
	"strings"
)

// Key naming convention for the photo pipeline. Uploads land under a
// per-user per-job prefix and finished artifacts under a parallel final
// prefix, so lifecycle rules can expire the two independently.

// UploadKey returns the object key for a freshly uploaded photo.
func UploadKey(userID, jobID, filename string) string {
	return path.Join("uploads", userID, jobID, safeFilename(filename))
}

// FinalKey returns the object key for a job's finished artifact.
func FinalKey(userID, jobID, filename string) string {
	return path.Join("final", userID, jobID, safeFilename(filename))
}

// JobIDFromKey extracts the job identity from an upload key, returning ""
// when the key does not follow the upload convention.
func JobIDFromKey(key string) string {
	parts := strings.Split(strings.Trim(key, "/"), "/")
	if len(parts) < 4 || parts[0] != "uploads" {
		return ""
	}
	return parts[2]
}

func safeFilename(filename string) string {
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		return "photo.jpg"
	}
	return filename
}
