package main

import (
	"github.com/KJHJason/Kemono-Harvester-CLI/cmds"
	"github.com/KJHJason/Kemono-Harvester-CLI/utils"
)

func main() {
	if err := cmds.RootCmd.Execute(); err != nil {
		utils.LogError(err, "", true, utils.ERROR)
	}
}
