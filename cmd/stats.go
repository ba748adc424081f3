package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show version and conversation statistics",
	Long: `Display statistics about the data directory including:
  - Snapshot count per version
  - Conversation count per version
  - Latest snapshot and source directory per version

Examples:
  docchat stats
  docchat stats --json
  docchat stats --toon`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

type dataStats struct {
	DataDir            string         `json:"data_dir"`
	TotalVersions      int            `json:"total_versions"`
	TotalSnapshots     int            `json:"total_snapshots"`
	TotalConversations int            `json:"total_conversations"`
	Versions           []versionStats `json:"versions"`
}

type versionStats struct {
	Version        string    `json:"version"`
	SourcePath     string    `json:"source_path"`
	Snapshots      int       `json:"snapshots"`
	Conversations  int       `json:"conversations"`
	LatestSnapshot string    `json:"latest_snapshot"`
	LastUpdated    time.Time `json:"last_updated"`
}

func runStats(cmd *cobra.Command, args []string) error {
	m, _, err := openManager()
	if err != nil {
		return err
	}
	defer m.Close()

	versions, err := m.ListVersions()
	if err != nil {
		return err
	}

	byVersion := make(map[string]*versionStats)
	stats := dataStats{DataDir: m.DataDir(), Versions: []versionStats{}}
	for _, v := range versions {
		vs, ok := byVersion[v.Version]
		if !ok {
			vs = &versionStats{Version: v.Version}
			byVersion[v.Version] = vs
		}
		vs.Snapshots++
		vs.Conversations += v.Conversations
		if v.Latest {
			vs.LatestSnapshot = v.Snapshot
			vs.LastUpdated = v.CreatedAt
			vs.SourcePath = v.SourcePath
		}
		stats.TotalSnapshots++
		stats.TotalConversations += v.Conversations
	}
	for _, vs := range byVersion {
		stats.Versions = append(stats.Versions, *vs)
	}
	sort.Slice(stats.Versions, func(i, j int) bool {
		return stats.Versions[i].Version < stats.Versions[j].Version
	})
	stats.TotalVersions = len(stats.Versions)

	if done, err := printStructured(stats, statsJSON, statsToon); done {
		return err
	}

	fmt.Println("docchat Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Data directory:      %s\n", stats.DataDir)
	fmt.Printf("Total versions:      %d\n", stats.TotalVersions)
	fmt.Printf("Total snapshots:     %d\n", stats.TotalSnapshots)
	fmt.Printf("Total conversations: %d\n", stats.TotalConversations)

	if len(stats.Versions) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println("By Version:")
	for _, vs := range stats.Versions {
		fmt.Printf("  %-12s %3d snapshot(s)  %3d conversation(s)  updated %s\n",
			vs.Version, vs.Snapshots, vs.Conversations, vs.LastUpdated.Format("2006-01-02 15:04"))
	}

	return nil
}
