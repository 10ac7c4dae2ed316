package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/content"
)

// withRepo runs fn against the configured database. peer, when set,
// overrides FOLIO_PEER_URL so a running server hears about the writes.
func withRepo(ctx context.Context, peer string, fn func(*content.Repo) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if peer != "" {
		cfg.PeerURL = peer
	}
	e, err := openEnv(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(content.NewRepo(e.store))
}

func seedCmd() *cobra.Command {
	var (
		fake int
		peer string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the default content, or generated demo content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepo(cmd.Context(), peer, func(repo *content.Repo) error {
				bundle := content.Defaults()
				if fake > 0 {
					bundle = fakeBundle(gofakeit.New(0), fake, time.Now())
				}
				if err := repo.Import(bundle); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d projects, %d posts, %d skills\n",
					len(bundle.Projects), len(bundle.Posts), len(bundle.Skills))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&fake, "fake", 0, "generate this many demo projects and posts")
	cmd.Flags().StringVar(&peer, "peer", "", "announce changes to the server at this ws:// URL")
	return cmd
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all content as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRepo(cmd.Context(), "", func(repo *content.Repo) error {
				w := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				return writeBundle(w, repo.Export())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	return cmd
}

func importCmd() *cobra.Command {
	var peer string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all content with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle, err := readBundle(args[0])
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), peer, func(repo *content.Repo) error {
				if err := repo.Import(bundle); err != nil {
					return err
				}
				c := repo.Counts()
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d projects, %d posts, %d pages, %d messages\n",
					c.Projects, c.Posts+c.Drafts, c.Pages, c.Messages)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&peer, "peer", "", "announce changes to the server at this ws:// URL")
	return cmd
}

func writeBundle(w io.Writer, b content.Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

func readBundle(path string) (content.Bundle, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return content.Bundle{}, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var b content.Bundle
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return content.Bundle{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return b, nil
}

// fakeBundle builds demo content on top of the defaults.
func fakeBundle(f *gofakeit.Faker, n int, now time.Time) content.Bundle {
	b := content.Defaults()
	b.Settings.Name = f.Name()
	b.Settings.Headline = f.JobTitle()
	b.Settings.Location = f.City()

	for i := 0; i < n; i++ {
		title := fmt.Sprintf("%s %d", f.AppName(), i+1)
		b.Projects = append(b.Projects, content.Project{
			ID:          f.UUID(),
			Slug:        content.Slugify(title),
			Title:       title,
			Summary:     f.Sentence(12),
			Description: f.Paragraph(2, 4, 12, "\n\n"),
			Tech:        []string{f.ProgrammingLanguage(), f.ProgrammingLanguage()},
			RepoURL:     "https://github.com/example/" + content.Slugify(title),
			Featured:    i < 2,
			Order:       100 + i,
			CreatedAt:   now.Add(-time.Duration(i) * 24 * time.Hour).UTC(),
		})

		postTitle := fmt.Sprintf("%s %d", strings.TrimSuffix(f.HackerPhrase(), "!"), i+1)
		b.Posts = append(b.Posts, content.BlogPost{
			ID:          f.UUID(),
			Slug:        content.Slugify(postTitle),
			Title:       postTitle,
			Excerpt:     f.Sentence(20),
			Body:        f.Paragraph(3, 5, 14, "\n\n"),
			Tags:        []string{f.BuzzWord()},
			Published:   i%4 != 3,
			PublishedAt: now.Add(-time.Duration(i) * 72 * time.Hour).UTC(),
		})

		b.Skills = append(b.Skills, content.Skill{
			ID:       f.UUID(),
			Name:     fmt.Sprintf("%s %d", f.ProgrammingLanguage(), i+1),
			Category: "Generated",
			Level:    f.Number(30, 95),
		})

		b.Testimonials = append(b.Testimonials, content.Testimonial{
			ID:     f.UUID(),
			Author: f.Name(),
			Role:   f.JobTitle() + " at " + f.Company(),
			Quote:  f.Sentence(18),
		})
	}
	return b
}
