package version

import "fmt"

var (
	Tag    string = "dev"
	Commit string = "none"
	Date   string = "unknown"
)

type Info struct{}

func (i *Info) String() string {
	return fmt.Sprintf("sub-optimizer %s (%s) built at %s", Tag, Commit, Date)
}

// UserAgent 是拉取订阅时默认使用的 User-Agent
func UserAgent() string {
	return "sub-optimizer/" + Tag
}
