/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ponyo877/callwatch/callpb"
)

var (
	cfgFile    string
	callClient callpb.CallServiceClient
	grpcConn   *grpc.ClientConn
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

const (
	grpcServerAddressKey = "grpc_server_address"
	httpServerAddressKey = "http_server_address"
	userIDKey            = "user_id"
	userNameKey          = "user_name"
	userImageKey         = "user_image"
	roleKey              = "role"
)

var rootCmd = &cobra.Command{
	Use:   "callwatch",
	Short: "Terminal client for callwatch call sessions",
	Long: `callwatch joins call sessions over gRPC and talks to the monitoring API over HTTP.

Teachers watch per-student focus live with "watch", students (or simulators)
report events with "send", and "report" prints the data behind an engagement report.
Run without arguments for an interactive shell.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if grpcConn != nil {
			return nil
		}
		conn, err := grpc.NewClient(viper.GetString(grpcServerAddressKey), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("did not connect to gRPC server: %w", err)
		}
		grpcConn = conn
		callClient = callpb.NewCallServiceClient(conn)
		return nil
	},
}

// Execute runs one command from os.Args, or an interactive shell when none is given.
func Execute() {
	defer func() {
		if grpcConn != nil {
			grpcConn.Close()
		}
	}()

	// one‑shot
	if len(os.Args) > 1 {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	// REPL
	fmt.Println("entering interactive mode, type 'exit' to quit")
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("❯❯❯ ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		args, err := shellwords.Parse(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing line: %v\n", err)
			continue
		}
		rootCmd.SetArgs(args)
		// Errors are already printed by cobra; the shell keeps running.
		_ = rootCmd.Execute()
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.callwatch.yaml)")
	rootCmd.PersistentFlags().String("grpc-server", "localhost:50051", "Address of the callwatch gRPC server")
	rootCmd.PersistentFlags().String("http-server", "http://localhost:8080", "Base URL of the callwatch HTTP API")
	rootCmd.PersistentFlags().String("user-id", "", "Your user id")
	rootCmd.PersistentFlags().String("user-name", "", "Your display name")
	rootCmd.PersistentFlags().String("user-image", "", "Your avatar URL")
	rootCmd.PersistentFlags().String("role", "", "student or teacher")

	viper.BindPFlag(grpcServerAddressKey, rootCmd.PersistentFlags().Lookup("grpc-server"))
	viper.BindPFlag(httpServerAddressKey, rootCmd.PersistentFlags().Lookup("http-server"))
	viper.BindPFlag(userIDKey, rootCmd.PersistentFlags().Lookup("user-id"))
	viper.BindPFlag(userNameKey, rootCmd.PersistentFlags().Lookup("user-name"))
	viper.BindPFlag(userImageKey, rootCmd.PersistentFlags().Lookup("user-image"))
	viper.BindPFlag(roleKey, rootCmd.PersistentFlags().Lookup("role"))
	viper.SetDefault(grpcServerAddressKey, "localhost:50051")
	viper.SetDefault(httpServerAddressKey, "http://localhost:8080")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".callwatch")
	}

	viper.SetEnvPrefix("CALLWATCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		}
	}
}
