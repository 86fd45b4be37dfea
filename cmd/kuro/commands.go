package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"kurogo/assistant"
	"kurogo/knowledge"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	kuroColor   = color.New(color.FgGreen)
	hintColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one utterance (teach commands included)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			r := a.assistant.Handle(cmd.Context(), strings.Join(args, " "))
			printReply(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func teachCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "teach <question> <answer>",
		Short: "Store an answer for a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			msg, err := a.engine.Teach(cmd.Context(), args[0], args[1], knowledge.SourceUser, category)
			if err != nil && msg == "" {
				return err
			}
			kuroColor.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category label; inferred from keywords when empty")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive session; an empty line or \"sair\" quits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return chat(cmd, a)
		},
	}
}

func chat(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	hintColor.Fprintln(out, `Teach me with "aprenda que X é Y" or "aprenda isso: X -> Y".`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		promptColor.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.EqualFold(line, "sair") || strings.EqualFold(line, "exit") {
			return nil
		}
		printReply(out, a.assistant.Handle(cmd.Context(), line))
	}
}

func printReply(w io.Writer, r assistant.Reply) {
	c := kuroColor
	switch r.Kind {
	case assistant.KindNotFound, assistant.KindNotUnderstood, assistant.KindApology:
		c = hintColor
	}
	c.Fprintf(w, "kuro> %s\n", r.Text)
	if r.Result.Strategy != "" {
		dimColor.Fprintf(w, "      (%s, score %.2f)\n", r.Result.Strategy, r.Result.Score)
	}
}

func trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Retrain the category classifier from the stored knowledge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.engine.Retrain(cmd.Context()); err != nil {
				if errors.Is(err, knowledge.ErrClassifierDisabled) || errors.Is(err, knowledge.ErrUndertrained) {
					hintColor.Fprintln(cmd.OutOrStdout(), err.Error())
					return nil
				}
				return err
			}
			m := a.engine.Model()
			fmt.Fprintf(cmd.OutOrStdout(), "model %s: %d samples, categories %s\n",
				m.ID, m.Samples, strings.Join(m.Classifier.Classes, ", "))
			if m.Evaluated {
				fmt.Fprintf(cmd.OutOrStdout(), "holdout accuracy %.2f\n", m.Accuracy)
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the knowledge store and classifier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			printStats(cmd.OutOrStdout(), a.engine.Stats())
			return nil
		},
	}
}

func printStats(w io.Writer, st knowledge.Stats) {
	fmt.Fprintf(w, "storage:   %s\n", st.Dialect)
	fmt.Fprintf(w, "records:   %d (%d canonical, %d aliases)\n", st.Records, st.Canonical, st.Aliases)
	fmt.Fprintln(w, "categories:")
	for _, cat := range sortedKeys(st.Categories) {
		fmt.Fprintf(w, "  %-20s %d\n", cat, st.Categories[cat])
	}
	fmt.Fprintln(w, "sources:")
	for _, src := range sortedKeys(st.Sources) {
		fmt.Fprintf(w, "  %-20s %d\n", src, st.Sources[src])
	}
	if len(st.TopUsed) > 0 {
		fmt.Fprintln(w, "most used:")
		for _, r := range st.TopUsed {
			fmt.Fprintf(w, "  %3d  %s\n", r.Fact.UseCount, r.Key)
		}
	}
	switch {
	case !st.ClassifierAvailable:
		fmt.Fprintln(w, "classifier: disabled")
	case st.ModelID == "":
		fmt.Fprintln(w, "classifier: not trained")
	default:
		fmt.Fprintf(w, "classifier: %s, %d samples, stale=%t", st.ModelID, st.ModelSamples, st.ModelStale)
		if st.ModelEvaluated {
			fmt.Fprintf(w, ", holdout accuracy %.2f", st.ModelAccuracy)
		}
		fmt.Fprintln(w)
	}
}

func sortedKeys(m map[string]int) []string {
	return slices.Sorted(maps.Keys(m))
}

func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <question>",
		Short: "Remove a question, its alternate phrasings included",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			q := strings.Join(args, " ")
			ok, err := a.engine.Forget(cmd.Context(), q)
			if err != nil {
				return err
			}
			if !ok {
				hintColor.Fprintf(cmd.OutOrStdout(), "nothing stored for %q\n", q)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %q\n", q)
			return nil
		},
	}
}
