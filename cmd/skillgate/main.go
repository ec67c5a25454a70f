package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

const appName = "skillgate"

const configFileParameter = "configFile"

func usage() {
	fmt.Printf(
		`Alexa skill HTTP gateway service.

Usage: [Options]

Options:
-h, --help
  Print this message.
-c, --config <file path>
  Path to configuration yaml file.
  Default: %v
-s, --service <action>
  Control the service. Action could be any of:
  install, uninstall, start, stop, restart, run
-t, --issue-token <user name>
  Print an account linking access token for the user and exit.
`,
		defaultConfigFile(),
	)
}

func defaultConfigFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(homeDir, appName, appName+".yml")
}

type application struct {
	configFile string
	logger     service.Logger
	server     httpServer
}

func (app *application) resolveConfigFile() {
	if app.configFile == "" {
		app.configFile, _ = getServiceParameter(appName, configFileParameter)
		if app.configFile == "" {
			app.configFile = defaultConfigFile()
		}
	}
}

func (app *application) run() {
	app.resolveConfigFile()
	if err := loadConfig(app.configFile); err != nil {
		app.logger.Error(err)
		os.Exit(1)
	}
	logger.Info("configuration loaded", zap.String("file", app.configFile))

	if err := app.server.start(); err != nil {
		logger.Error("http server failed", zap.Error(err))
		logger.Sync()
		os.Exit(2)
	}
}

func (app *application) issueToken(userName string) int {
	app.resolveConfigFile()
	if err := loadConfig(app.configFile); err != nil {
		fmt.Println(err)
		return 1
	}
	if config.Authorization == nil {
		fmt.Println("authorization section is missing in the configuration file.")
		return 1
	}
	if config.Authorization.TokenSecret == "" {
		fmt.Println("authorization.tokenSecret must be set to issue tokens.")
		return 1
	}
	token, err := createAccessToken(userName)
	if err != nil {
		fmt.Println(err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func (app *application) Start(s service.Service) error {
	go app.run()
	return nil
}

func (app *application) Stop(s service.Service) error {
	err := app.server.stop()
	logger.Sync()
	return err
}

func main() {

	svcConfig := &service.Config{
		Name:        appName,
		DisplayName: "Alexa Skill Gateway",
		Description: "Verifies and answers Alexa skill requests.",
	}

	app := &application{}
	svc, err := service.New(app, svcConfig)
	if err != nil {
		log.Fatal(err)
	}
	app.logger, err = svc.Logger(nil)
	if err != nil {
		log.Fatal(err)
	}
	if service.Interactive() {
		var action, tokenUser string

		argc := len(os.Args)
		for i := 1; i < argc; i++ {
			arg := os.Args[i]
			switch arg {
			case "-h", "--help":
				usage()
				os.Exit(100)
			case "-c", "--config":
				if i++; i < argc {
					app.configFile = os.Args[i]
				}
			case "-s", "--service":
				if i++; i < argc {
					action = os.Args[i]
				}
			case "-t", "--issue-token":
				if i++; i < argc {
					tokenUser = os.Args[i]
				}
			}
		}

		if tokenUser != "" {
			os.Exit(app.issueToken(tokenUser))
		}

		saveParameters := true
		switch action {
		case "install":
			err = svc.Install()
		case "uninstall":
			saveParameters = false
			err = svc.Uninstall()
		case "start":
			err = svc.Start()
		case "stop":
			err = svc.Stop()
		case "restart":
			err = svc.Restart()
		case "run", "":
			saveParameters = false
			err = svc.Run()
		default:
			usage()
			os.Exit(100)
		}

		if err != nil {
			log.Println(err)
		}

		if saveParameters && app.configFile != "" {
			err := setServiceParameter(svcConfig.Name, configFileParameter, app.configFile)
			if err != nil {
				fmt.Printf("Path to configuration file wasn't updated: %v", err)
			}
		}

		return
	}
	err = svc.Run()
	if err != nil {
		app.logger.Error(err)
	}
}
