// Package archive builds one compressed, checksummed tar archive per flow
// cell lane from an instrument run directory.
//
// The file set for a lane is a pure function of the directory contents, the
// lane number, and the exclude patterns: every file, minus thumbnail and image
// content, minus anything below another lane's L00n segment. Ownership is
// normalized to uid/gid 0 and the stream is piped through a compressor (pigz
// by default). A companion .md5 file in md5sum format accompanies each archive.
package archive
