// Package storage persists exported frames and panoramas as JPEG files under
// a run's output prefix.
//
// Layout:
//
//	<prefix>/groups/group001/frame_0000012.jpg
//	<prefix>/panos/group001.jpg
//	<prefix>/.panscan.lock
//
// A prefix is a local directory or a gs://bucket/path URI. Local prefixes are
// guarded by the lock file; other URI schemes are rejected with
// services.ErrUnsupported. FetchObject copies a gs:// input video to local
// disk for decoding.
package storage
