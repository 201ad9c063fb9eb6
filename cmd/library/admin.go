package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Log in and print a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(c.out, "Password: ")
				line, _ := bufio.NewReader(c.in).ReadString('\n')
				password = strings.TrimSpace(line)
			}
			if password == "" {
				return errors.New("a password is required")
			}

			token, user, err := c.api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(map[string]any{"token": token, "user": user})
			}

			success(c.out, "Logged in as %s (%s)", user.Name, user.Role)
			fmt.Fprintf(c.out, "export LIBRARY_TOKEN=%s\n", token)
			if user.StudentID != "" {
				fmt.Fprintf(c.out, "export LIBRARY_STUDENT=%s\n", user.StudentID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func (c *cli) studentsCmd() *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "students",
		Short: "List registered students (staff only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			students, metadata, err := c.api.ListStudents(cmd.Context(), page)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(map[string]any{"students": students, "metadata": metadata})
			}

			section(c.out, "Students")
			if len(students) == 0 {
				muted(c.out, "No students found.")
				return nil
			}

			t := newTable("Student ID", "Name", "Email", "Department", "Year", "Status")
			for _, s := range students {
				t.Row(s.StudentID, s.Name, s.Email, s.Department, strconv.Itoa(s.YearLevel), string(s.Status))
			}
			fmt.Fprintln(c.out, t.String())
			muted(c.out, "Page %d of %d, %d students", metadata.CurrentPage, metadata.LastPage, metadata.TotalRecords)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	return cmd
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library totals (staff only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(stats)
			}

			section(c.out, "Library stats")
			t := newTable("", "Total")
			t.Row("Books", strconv.Itoa(stats.TotalBooks))
			t.Row("Books available", strconv.Itoa(stats.AvailableBooks))
			t.Row("Copies", strconv.Itoa(stats.TotalCopies))
			t.Row("Copies on loan", strconv.Itoa(stats.CopiesOnLoan))
			t.Row("Students", strconv.Itoa(stats.TotalStudents))
			t.Row("Active students", strconv.Itoa(stats.ActiveStudents))
			t.Row("Active loans", strconv.Itoa(stats.ActiveLoans))
			fmt.Fprintln(c.out, t.String())

			if stats.AvailableBooks == 0 && stats.TotalBooks > 0 {
				warning(c.out, "Every book is out on loan.")
			}
			return nil
		},
	}
}
