package cmds

import (
	"context"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/KJHJason/Kemono-Harvester-CLI/api/kemono"
	"github.com/KJHJason/Kemono-Harvester-CLI/configs"
	"github.com/KJHJason/Kemono-Harvester-CLI/pipeline"
	"github.com/KJHJason/Kemono-Harvester-CLI/request"
	"github.com/KJHJason/Kemono-Harvester-CLI/session"
	"github.com/KJHJason/Kemono-Harvester-CLI/spinner"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

var (
	updateUrl    string
	updateDryRun bool
	updateCmd    = &cobra.Command{
		Use:   "update",
		Short: "Check a creator for new posts and download only those.",
		Long: "Diffs the creator's current post list against the saved creator profile\n" +
			"and downloads only the posts that were added since the last run.",
		Run: func(cmd *cobra.Command, args []string) {
			runUpdate()
		},
	}
)

func runUpdate() {
	source, err := kemono.ParseSourceUrl(updateUrl)
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	if source.IsSinglePost() {
		color.Red("The update command needs a creator URL, not a post URL.")
		os.Exit(1)
	}

	profile, err := session.LoadProfile(source.ProfileKey())
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	if len(profile.ProcessedPostIds) == 0 {
		color.Yellow("No creator profile found for %s yet.", source.ProfileKey())
		color.Yellow("Run the download command once first; update runs diff against that history.")
		os.Exit(1)
	}

	cfg := profile.Settings
	if cfg == nil {
		color.Red("The creator profile for %s has no saved settings.", source.ProfileKey())
		os.Exit(1)
	}
	cfg.SourceUrl = updateUrl
	settings, err := configs.LoadSettings()
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	cfg.ApplyDefaults(settings)
	if err := cfg.Validate(); err != nil {
		color.Red(err.Error())
		os.Exit(1)
	}

	client := &request.Client{UserAgent: cfg.UserAgent, UseHttp3: cfg.UseHttp3}
	sp := spinner.New("dots", "cyan", "Checking "+source.Host()+" for new posts...")
	sp.SuccessMsg = "Finished checking for new posts!"
	sp.ErrMsg = "Failed to check for new posts."
	sp.Start()
	allIds, err := kemono.GetAllPostIds(context.Background(), client, source)
	sp.Stop(err != nil)
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}

	var newIds []string
	for _, id := range allIds {
		if !profile.HasProcessed(id) {
			newIds = append(newIds, id)
		}
	}
	if len(newIds) == 0 {
		color.Green("No new posts for %s.", source.ProfileKey())
		return
	}
	color.Cyan("Found %d new post(s) for %s.", len(newIds), source.ProfileKey())
	if updateDryRun {
		return
	}

	coordinator, err := pipeline.NewCoordinator(cfg)
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
	coordinator.SeedProcessed(profile.ProcessedPostIds)
	summary, err := coordinator.Run(context.Background())
	if err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}

	if summary != nil && !summary.Cancelled {
		profile.Extend(summary.ProcessedPostIds)
		if err := session.SaveProfile(source.ProfileKey(), profile); err != nil {
			utils.LogError(err, "", false, utils.ERROR)
		}
	}
}

func init() {
	updateCmd.Flags().StringVarP(&updateUrl, "url", "u", "", "Creator URL to check for updates. (required)")
	updateCmd.MarkFlagRequired("url")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry_run", false, "Only report how many new posts exist, do not download.")
}
