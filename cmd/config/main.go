package main

import (
	"fmt"
	"os"
	"strconv"

	"project/util"
)

func usage() {
	fmt.Println("usage: ./bin/config [sync|port <workers> <basePort>]")
	fmt.Println("example ./bin/config sync")
	fmt.Println("example ./bin/config port 3 43460")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	if os.Args[1] == "sync" {
		err := util.SynchronizeConfigs(util.CONFIG_DIR)
		if err != nil {
			fmt.Println("Failed to synchronize config files", err)
		}
	} else if os.Args[1] == "port" && len(os.Args) == 4 {
		n, err := strconv.Atoi(os.Args[2])
		util.CheckErr(err, "Invalid worker count %v\n", os.Args[2])
		basePort, err := strconv.Atoi(os.Args[3])
		util.CheckErr(err, "Invalid base port %v\n", os.Args[3])

		err = util.AssignPorts(util.CONFIG_DIR, n, basePort)
		if err != nil {
			fmt.Println("Failed to assign port numbers to workers", err)
		}
	} else {
		usage()
	}
}
