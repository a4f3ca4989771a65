package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"fetlife-adapter/internal/scrapers/fetlife"

	"github.com/spf13/cobra"
)

func parseId(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func parseWho(raw string) fetlife.Who {
	if strings.EqualFold(raw, "me") {
		return fetlife.Me()
	}
	return fetlife.ByString(raw)
}

func eventsCmd(a *app) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:     "events <location>",
		Short:   "List upcoming events of a location path, like cities/5898.",
		Example: "fetlife-cli events cities/5898 --pages 2",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				events, err := user.GetUpcomingEventsInLocation(cmd.Context(), args[0], pages)
				if err != nil {
					return err
				}
				renderEvents(a.out, events)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of listing pages to read.")
	return cmd
}

func eventCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "event <id>",
		Short: "Show one event.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				event, err := user.GetEventById(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderEvents(a.out, []fetlife.Event{event})
				return nil
			})
		},
	}
}

func attendeesCmd(a *app) *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "attendees <event id>",
		Short: "List who RSVPed to an event.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				event := fetlife.Event{Id: id}
				if err := user.Populate(cmd.Context(), &event, pages); err != nil {
					return err
				}
				renderAttendees(a.out, event)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of pages to read per RSVP status.")
	return cmd
}

func profileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <user id | me>",
		Short: "Show the nickname of a profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				profile, err := user.GetUserProfile(cmd.Context(), parseWho(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s (%d)\n", profile.Nickname, profile.Id)
				return nil
			})
		},
	}
}

func writingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "writings <user id | me>",
		Short: "List the writings of a profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				writings, err := user.GetWritingsOf(cmd.Context(), parseWho(args[0]))
				if err != nil {
					return err
				}
				renderWritings(a.out, writings)
				return nil
			})
		},
	}
}

func postsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "posts <group id>",
		Short: "List the posts of a group.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				posts, err := user.GetGroupPosts(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderPosts(a.out, posts)
				return nil
			})
		},
	}
}

func messagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "messages",
		Short: "List the latest message of every inbox conversation.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.asUser(cmd.Context(), func(user *fetlife.User) error {
				messages, err := user.GetConversationMessages(cmd.Context())
				if err != nil {
					return err
				}
				renderMessages(a.out, messages)
				return nil
			})
		},
	}
}
