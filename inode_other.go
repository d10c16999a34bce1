//go:build !unix

package slackfs

import "os"

func inodeOf(info os.FileInfo) (uint64, bool) {
	return 0, false
}
