// cmd/plaza/board.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/minsu-cho/plaza/internal/model"
)

// postRow is the short listing shape.
type postRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Likes     int64  `json:"likes"`
	CreatedAt string `json:"createdAt"`
}

func toPostRow(p *model.Post) postRow {
	return postRow{
		ID:        p.ID,
		Title:     p.Title,
		Author:    p.Author,
		Likes:     p.Likes,
		CreatedAt: tsString(p.CreatedAt),
	}
}

type commentRow struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Likes     int64  `json:"likes"`
	CreatedAt string `json:"createdAt"`
}

func toCommentRow(c *model.Comment) commentRow {
	return commentRow{
		ID:        c.ID,
		Author:    c.Author,
		Content:   c.Content,
		Likes:     c.Likes,
		CreatedAt: tsString(c.CreatedAt),
	}
}

func tsString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// contentArg resolves the body from -content or -file ('-'=stdin).
func contentArg(content, file string) (string, error) {
	if content != "" {
		return content, nil
	}
	if file == "" {
		return "", errors.New("need -content or -file")
	}
	b, err := readAll(file)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func runPost(ctx context.Context, a *app, args []string) {
	if len(args) < 1 {
		usage()
	}
	sub := args[0]
	rest := args[1:]

	switch sub {

	case "list":
		posts, err := a.posts.List(ctx)
		if err != nil {
			fail(err)
		}
		rows := make([]postRow, 0, len(posts))
		for i := range posts {
			rows = append(rows, toPostRow(&posts[i]))
		}
		printJSON(rows)

	case "read":
		fs := flag.NewFlagSet("post read", flag.ExitOnError)
		id := fs.String("id", "", "post id")
		_ = fs.Parse(rest)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		post, err := a.posts.Get(ctx, *id)
		if err != nil {
			fail(err)
		}
		if post == nil {
			fail(errors.New("post not found"))
		}
		comments, err := a.comments.List(ctx, *id)
		if err != nil {
			fail(err)
		}

		fmt.Printf("%s\nby %s at %s  likes=%d\n\n%s\n",
			post.Title, post.Author, tsString(post.CreatedAt), post.Likes, post.Content)
		if len(comments) > 0 {
			fmt.Printf("\n-- %d comment(s) --\n", len(comments))
			rows := make([]commentRow, 0, len(comments))
			for i := range comments {
				rows = append(rows, toCommentRow(&comments[i]))
			}
			printJSON(rows)
		}

	case "write":
		fs := flag.NewFlagSet("post write", flag.ExitOnError)
		title := fs.String("title", "", "post title")
		content := fs.String("content", "", "post body")
		file := fs.String("file", "", "body file ('-'=stdin)")
		_ = fs.Parse(rest)
		body, err := contentArg(*content, *file)
		if err != nil {
			fail(err)
		}
		id, err := a.posts.Create(ctx, model.CreatePost{Title: *title, Content: body})
		if err != nil {
			fail(err)
		}
		fmt.Println(id)

	case "rm":
		id := idArg("post rm", rest)
		if err := a.posts.Delete(ctx, id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "like":
		id := idArg("post like", rest)
		if err := a.posts.ToggleLike(ctx, id); err != nil {
			fail(err)
		}
		post, err := a.posts.Get(ctx, id)
		if err != nil || post == nil {
			fmt.Println("ok")
			return
		}
		fmt.Printf("likes=%d\n", post.Likes)

	default:
		usage()
	}
}

func runComment(ctx context.Context, a *app, args []string) {
	if len(args) < 1 {
		usage()
	}
	sub := args[0]
	rest := args[1:]

	switch sub {

	case "add":
		fs := flag.NewFlagSet("comment add", flag.ExitOnError)
		post := fs.String("post", "", "post id")
		content := fs.String("content", "", "comment body")
		file := fs.String("file", "", "body file ('-'=stdin)")
		_ = fs.Parse(rest)
		if strings.TrimSpace(*post) == "" {
			fmt.Fprintln(os.Stderr, "need -post")
			os.Exit(1)
		}
		body, err := contentArg(*content, *file)
		if err != nil {
			fail(err)
		}
		id, err := a.comments.Create(ctx, *post, model.CreateComment{Content: body})
		if err != nil {
			fail(err)
		}
		fmt.Println(id)

	case "rm":
		id := idArg("comment rm", rest)
		if err := a.comments.Delete(ctx, id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "like":
		id := idArg("comment like", rest)
		if err := a.comments.ToggleLike(ctx, id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	default:
		usage()
	}
}

func idArg(name string, args []string) string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.String("id", "", "record id")
	_ = fs.Parse(args)
	if *id == "" {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}
	return *id
}
