// Affinity - Order Recommendation Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/affinity

package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/affinity/internal/recommend"
	"github.com/tomtom215/affinity/internal/validation"
)

func validateIDs(field string, ids []string) error {
	if verr := validation.ValidateItemIDs(field, ids); verr != nil {
		return verr
	}
	return nil
}

func (a *App) newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo menu and order history into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.db.SeedDemoData(cmd.Context(), time.Now().UTC())
			if err != nil {
				return fmt.Errorf("seed demo data: %w", err)
			}
			if n == 0 {
				fmt.Fprintln(a.stderr, "store already holds orders, nothing seeded")
			}
			result := struct {
				OrdersWritten int    `json:"orders_written"`
				Path          string `json:"path"`
			}{n, s.db.Path()}
			return a.render(result, table{
				header: []string{"ORDERS WRITTEN", "PATH"},
				rows:   [][]string{{strconv.Itoa(n), s.db.Path()}},
			})
		},
	}
}

func (a *App) newRulesCmd() *cobra.Command {
	var minSupport, minConfidence float64

	cmd := &cobra.Command{
		Use:   "rules ITEM...",
		Short: "Mine association rules for seed items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("items", args); err != nil {
				return err
			}
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if cmd.Flags().Changed("min-support") || cmd.Flags().Changed("min-confidence") {
				support, confidence := s.engine.Thresholds()
				if cmd.Flags().Changed("min-support") {
					support = minSupport
				}
				if cmd.Flags().Changed("min-confidence") {
					confidence = minConfidence
				}
				if err := s.engine.SetThresholds(support, confidence); err != nil {
					return err
				}
			}

			rules := s.engine.MineRules(cmd.Context(), args)
			t := table{header: []string{"ANTECEDENT", "CONSEQUENT", "SUPPORT", "CONFIDENCE", "LIFT", "ORDERS"}}
			for _, r := range rules {
				t.rows = append(t.rows, []string{
					strings.Join(r.Antecedent, "+"), r.ConsequentID(),
					ff(r.Support), ff(r.Confidence), ff(r.Lift), strconv.Itoa(r.OrderCount),
				})
			}
			return a.render(rules, t)
		},
	}

	cmd.Flags().Float64Var(&minSupport, "min-support", 0, "override the minimum rule support")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "override the minimum rule confidence")
	return cmd
}

func (a *App) newBundlesCmd() *cobra.Command {
	var minSize, maxSize int

	cmd := &cobra.Command{
		Use:   "bundles",
		Short: "List frequently co-ordered item sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			bundles := s.engine.FindFrequentBundles(cmd.Context(), minSize, maxSize)
			t := table{header: []string{"ITEMS", "SUPPORT", "ORDERS"}}
			for _, b := range bundles {
				t.rows = append(t.rows, []string{strings.Join(b.Items, "+"), ff(b.Support), strconv.Itoa(b.Count)})
			}
			return a.render(bundles, t)
		},
	}

	cmd.Flags().IntVar(&minSize, "min-size", 2, "smallest bundle size (2 or 3)")
	cmd.Flags().IntVar(&maxSize, "max-size", 3, "largest bundle size (2 or 3)")
	return cmd
}

func (a *App) newProfileCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "profile CUSTOMER",
		Short: "Show a customer's preference profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("customer_id", args); err != nil {
				return err
			}
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			profile := s.engine.GetUserProfile(cmd.Context(), args[0])
			t := table{header: []string{"ITEM", "PREFERENCE", "RECENCY WEIGHTED"}}
			for _, id := range profile.TopItems(top) {
				t.rows = append(t.rows, []string{id, ff(profile.Preferences[id]), ff(profile.RecencyWeightedPreferences[id])})
			}
			return a.render(profile, t)
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "rows shown in table output, 0 for all")
	return cmd
}

func (a *App) newSimilarCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar CUSTOMER",
		Short: "Rank customers by purchase overlap with CUSTOMER",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("customer_id", args); err != nil {
				return err
			}
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			users := s.engine.FindSimilarUsers(cmd.Context(), args[0], limit)
			t := table{header: []string{"CUSTOMER", "SIMILARITY", "OVERLAP"}}
			for _, u := range users {
				t.rows = append(t.rows, []string{u.CustomerID, ff(u.Similarity), strconv.Itoa(u.Overlap)})
			}
			return a.render(users, t)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum customers returned")
	return cmd
}

func (a *App) newScoreCmd() *cobra.Command {
	var cart []string
	var customer string

	cmd := &cobra.Command{
		Use:   "score [CANDIDATE...]",
		Short: "Score candidate items against a cart or a customer",
		Long: `Score candidate items. With --cart the scores come from association
rules, with --customer from collaborative filtering. Without candidates every
available menu item is scored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("candidates", args); err != nil {
				return err
			}
			if err := validateIDs("cart", cart); err != nil {
				return err
			}
			if customer != "" {
				if err := validateIDs("customer_id", []string{customer}); err != nil {
					return err
				}
			}
			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			var scores map[string]float64
			if customer != "" {
				scores = s.engine.CalculateScores(cmd.Context(), args, customer)
			} else {
				scores = s.engine.CalculateAffinityScores(cmd.Context(), args, cart)
			}

			items := rankScores(scores)
			t := table{header: []string{"ITEM", "SCORE"}}
			for _, it := range items {
				t.rows = append(t.rows, []string{it.ItemID, ff(it.Score)})
			}
			return a.render(items, t)
		},
	}

	cmd.Flags().StringSliceVar(&cart, "cart", nil, "items already in the cart")
	cmd.Flags().StringVar(&customer, "customer", "", "customer to score for")
	cmd.MarkFlagsMutuallyExclusive("cart", "customer")
	return cmd
}

func (a *App) newSuggestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Build suggestion lists",
	}

	meal := &cobra.Command{
		Use:   "meal ITEM...",
		Short: "Items that complete a cart",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("cart", args); err != nil {
				return err
			}
			return a.withEngine(func(e *recommend.Engine) error {
				return a.renderSuggestions(e.GetCompleteMealSuggestions(cmd.Context(), args, limit))
			})
		},
	}

	alsoBought := &cobra.Command{
		Use:   "also-bought ITEM",
		Short: "Items frequently ordered with ITEM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("item_id", args); err != nil {
				return err
			}
			return a.withEngine(func(e *recommend.Engine) error {
				return a.renderSuggestions(e.GetAlsoBoughtSuggestions(cmd.Context(), args[0], limit))
			})
		},
	}

	forCustomer := &cobra.Command{
		Use:   "customer CUSTOMER",
		Short: "Items ordered by customers similar to CUSTOMER",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateIDs("customer_id", args); err != nil {
				return err
			}
			return a.withEngine(func(e *recommend.Engine) error {
				items := e.GetUserBasedRecommendations(cmd.Context(), args[0], limit)
				t := table{header: []string{"ITEM", "SCORE"}}
				for _, it := range items {
					t.rows = append(t.rows, []string{it.ItemID, ff(it.Score)})
				}
				return a.render(items, t)
			})
		},
	}

	cmd.PersistentFlags().IntVar(&limit, "limit", 0, "maximum suggestions, 0 for the configured default")
	cmd.AddCommand(meal, alsoBought, forCustomer)
	return cmd
}

func (a *App) withEngine(fn func(*recommend.Engine) error) error {
	s, err := a.openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s.engine)
}

func (a *App) renderSuggestions(suggestions []recommend.AffinityScore) error {
	t := table{header: []string{"ITEM", "SCORE", "RULES"}}
	for _, sg := range suggestions {
		t.rows = append(t.rows, []string{sg.ItemID, ff(sg.Score), strconv.Itoa(len(sg.ContributingRules))})
	}
	return a.render(suggestions, t)
}

// rankScores orders a score map highest first, ties by item ID.
func rankScores(scores map[string]float64) []recommend.ScoredItem {
	items := make([]recommend.ScoredItem, 0, len(scores))
	for id, score := range scores {
		items = append(items, recommend.ScoredItem{ItemID: id, Score: score})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID < items[j].ItemID
	})
	return items
}
