package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.tdpain.net/codemicro/vecnews/models"
	"git.tdpain.net/codemicro/vecnews/posts"
	"git.tdpain.net/codemicro/vecnews/transport"
	"github.com/spf13/cobra"
)

func printArticles(w io.Writer, articles []models.Article, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(articles)
	}

	if len(articles) == 0 {
		_, err := fmt.Fprintln(w, "No articles found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tPUBLISHED\tSOURCE\tTITLE")
	for _, a := range articles {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.PublishedAt.Format("2006-01-02"), a.Source, a.Title)
	}
	return tw.Flush()
}

func printArticle(w io.Writer, a models.Article) error {
	_, err := fmt.Fprintf(w, "%s\nBy %s - %s - %s\n\n%s\n\n%s\n",
		a.Title, a.Author, a.Source, a.PublishedAt.Format("January 2, 2006"), a.Description, a.Content)
	if err != nil {
		return err
	}
	if a.ImageURL != "" {
		_, _ = fmt.Fprintf(w, "\nImage: %s\n", a.ImageURL)
	}
	if a.URL != "" {
		_, _ = fmt.Fprintf(w, "Original: %s\n", a.URL)
	}
	_, err = fmt.Fprintf(w, "\n--- share ---\n%s\n", a.ShareText())
	return err
}

func (a *app) feedCmd() *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print your posts followed by the top headlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(b *backend) error {
				return printArticles(cmd.OutOrStdout(), b.Aggregator.LoadFeed(cmd.Context(), cat), asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only show headlines in this category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		category string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search your posts and the news provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(b *backend) error {
				return printArticles(cmd.OutOrStdout(), b.Aggregator.Search(cmd.Context(), args[0], cat), asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category used when QUERY is blank")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) postCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Manage your own posts",
	}
	cmd.AddCommand(
		a.postCreateCmd(),
		a.postListCmd(),
		a.postShowCmd(),
		a.postUpdateCmd(),
		a.postDeleteCmd(),
	)
	return cmd
}

func bindInputFlags(cmd *cobra.Command, inputs *transport.Inputs) {
	cmd.Flags().StringVar(&inputs.Title, "title", "", "headline")
	cmd.Flags().StringVar(&inputs.Description, "description", "", "short summary")
	cmd.Flags().StringVar(&inputs.Content, "content", "", "body text")
	cmd.Flags().StringVar(&inputs.Author, "author", "", "author name (default \""+transport.DefaultAuthor+"\")")
	cmd.Flags().StringVar(&inputs.ImageURL, "image-url", "", "URL of an image")
	cmd.Flags().StringVar(&inputs.URL, "url", "", "link to the original")
	cmd.Flags().StringVar(&inputs.Category, "category", "", "one of the known categories")
}

func validationError(err error) error {
	return fmt.Errorf("invalid post: %v", transport.Problems(err))
}

func (a *app) postCreateCmd() *cobra.Command {
	inputs := new(transport.Inputs)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := inputs.Validate(); err != nil {
				return validationError(err)
			}
			article := inputs.Article(time.Now())
			return a.withBackend(cmd, func(b *backend) error {
				if err := b.Posts.Create(cmd.Context(), article); err != nil {
					return fmt.Errorf("failed to publish your post: %w", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), article.ID)
				return err
			})
		},
	}
	bindInputFlags(cmd, inputs)
	return cmd
}

func (a *app) postListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(b *backend) error {
				articles, err := b.Posts.List(cmd.Context())
				if err != nil {
					return err
				}
				return printArticles(cmd.OutOrStdout(), articles, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) postShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend) error {
				article, err := b.Posts.Get(cmd.Context(), args[0])
				if errors.Is(err, posts.ErrNotFound) {
					return fmt.Errorf("no post with ID %q", args[0])
				}
				if err != nil {
					return err
				}
				return printArticle(cmd.OutOrStdout(), article)
			})
		},
	}
}

func (a *app) postUpdateCmd() *cobra.Command {
	flags := new(transport.Inputs)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a post. Fields without a flag keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend) error {
				existing, err := b.Posts.Get(cmd.Context(), args[0])
				if errors.Is(err, posts.ErrNotFound) {
					return fmt.Errorf("no post with ID %q", args[0])
				}
				if err != nil {
					return err
				}

				inputs := transport.FromArticle(existing)
				changed := cmd.Flags().Changed
				if changed("title") {
					inputs.Title = flags.Title
				}
				if changed("description") {
					inputs.Description = flags.Description
				}
				if changed("content") {
					inputs.Content = flags.Content
				}
				if changed("author") {
					inputs.Author = flags.Author
				}
				if changed("image-url") {
					inputs.ImageURL = flags.ImageURL
				}
				if changed("url") {
					inputs.URL = flags.URL
				}
				if changed("category") {
					inputs.Category = flags.Category
				}

				if err := inputs.Validate(); err != nil {
					return validationError(err)
				}
				return b.Posts.Update(cmd.Context(), existing.ID, inputs.Apply(existing))
			})
		},
	}
	bindInputFlags(cmd, flags)
	return cmd
}

func (a *app) postDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend) error {
				return b.Posts.Delete(cmd.Context(), args[0])
			})
		},
	}
}
