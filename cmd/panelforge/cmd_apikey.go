/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/panelforge/internal/auth"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long:  "Create, list, and revoke the API keys used to authenticate against the HTTP API",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	RunE:  runKeysCreate,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys",
	RunE:  runKeysList,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var (
	keyName        string
	keyExpiresDays int
)

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysRevokeCmd)

	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "Display name for the key (required)")
	keysCreateCmd.Flags().IntVar(&keyExpiresDays, "expires-days", 90, "Days until the key expires")
	keysCreateCmd.MarkFlagRequired("name")
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	plaintext, apiKey, err := auth.GenerateAPIKey(keyName, time.Duration(keyExpiresDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if err := database.Create(apiKey).Error; err != nil {
		return fmt.Errorf("store key: %w", err)
	}

	fmt.Printf("API key created. Store it now, it will not be shown again.\n\n")
	fmt.Printf("  ID:      %s\n", apiKey.ID)
	fmt.Printf("  Name:    %s\n", apiKey.Name)
	fmt.Printf("  Key:     %s\n", plaintext)
	fmt.Printf("  Expires: %s\n", apiKey.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runKeysList(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	keys, err := auth.ListAPIKeys(database)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	if len(keys) == 0 {
		fmt.Println("No API keys.")
		return nil
	}

	for _, key := range keys {
		status := "active"
		if key.IsRevoked() {
			status = "revoked"
		} else if key.IsExpired() {
			status = "expired"
		}
		fmt.Printf("%s  %-10s  %-8s  %s\n", key.ID, key.KeyPrefix, status, key.Name)
	}
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	if err := auth.RevokeAPIKey(database, args[0]); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	fmt.Printf("Revoked %s\n", args[0])
	return nil
}
