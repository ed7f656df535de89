// SPDX-License-Identifier: GPL-2.0-or-later

package tree

// Contents classifies what fills a leaf. Values are ORed together when
// leaves are grouped into clusters.
type Contents uint32

const (
	ContentsEmpty Contents = 0

	ContentsSolid Contents = 1 << iota
	ContentsSky
	ContentsLava
	ContentsSlime
	ContentsWater
	ContentsMist
	ContentsAreaPortal
	ContentsDetail
	// blocks visibility but not movement
	ContentsVisBlocker
)

// visibility priority, strongest first
var visOrder = []Contents{
	ContentsSolid,
	ContentsSky,
	ContentsLava,
	ContentsSlime,
	ContentsWater,
	ContentsMist,
}

// VisibleContents returns the single strongest drawable content bit set
// in c, or ContentsEmpty.
func VisibleContents(c Contents) Contents {
	for _, v := range visOrder {
		if c&v != 0 {
			return v
		}
	}
	return ContentsEmpty
}

func (c Contents) IsSolid() bool {
	return c&ContentsSolid != 0
}

func (c Contents) IsEmpty() bool {
	return c == ContentsEmpty
}
