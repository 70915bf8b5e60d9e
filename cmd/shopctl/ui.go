package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"arkshop/internal/shop"
)

var (
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	neutral = color.New(color.FgHiWhite)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printHeader(title string) {
	fmt.Println(headerStyle.Render(title))
}

func decodeInto[T any](raw map[string]any) (T, error) {
	var out T
	data, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

type balancePayload struct {
	PlayerID string `json:"player_id"`
	Balance  int64  `json:"balance"`
}

type transactionsPayload struct {
	PlayerID     string `json:"player_id"`
	Transactions []struct {
		ID        int64     `json:"id"`
		Points    int64     `json:"points"`
		Status    string    `json:"status"`
		Source    string    `json:"source"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"transactions"`
}

type pendingPayload struct {
	Pending []shop.PendingDelivery `json:"pending"`
}

type flushPayload struct {
	Delivered int `json:"delivered"`
}

func renderBalance(raw map[string]any) error {
	out, err := decodeInto[balancePayload](raw)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d points\n", out.PlayerID, out.Balance)
	return nil
}

func renderTransactions(raw map[string]any) error {
	out, err := decodeInto[transactionsPayload](raw)
	if err != nil {
		return err
	}
	printHeader(fmt.Sprintf("Transactions for %s", out.PlayerID))
	if len(out.Transactions) == 0 {
		printInfo("No transactions.")
		return nil
	}
	fmt.Printf("%-8s %8s %-16s %-30s %s\n", "ID", "POINTS", "STATUS", "SOURCE", "WHEN")
	for _, tx := range out.Transactions {
		fmt.Printf("%-8d %8d %-16s %-30s %s\n",
			tx.ID, tx.Points, tx.Status, truncate(tx.Source, 30),
			tx.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func renderPending(raw map[string]any) error {
	out, err := decodeInto[pendingPayload](raw)
	if err != nil {
		return err
	}
	printHeader("Pending deliveries")
	if len(out.Pending) == 0 {
		printInfo("Nothing pending.")
		return nil
	}
	fmt.Printf("%-8s %-20s %-20s %8s %s\n", "ID", "PLAYER", "ITEM", "PRICE", "SINCE")
	for _, d := range out.Pending {
		fmt.Printf("%-8d %-20s %-20s %8d %s\n",
			d.ID, truncate(d.PlayerID, 20), truncate(d.ItemName, 20), d.Price,
			d.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func renderFlush(raw map[string]any) error {
	out, err := decodeInto[flushPayload](raw)
	if err != nil {
		return err
	}
	if out.Delivered == 0 {
		printWarn("Nothing delivered; failures stay queued.")
		return nil
	}
	printSuccess(fmt.Sprintf("Delivered %d queued purchases.", out.Delivered))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return strings.TrimSpace(s[:max-3]) + "..."
}
