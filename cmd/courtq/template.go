package main

const configTemplate = `# courtq Session Configuration
# ============================
# This file describes one club session: who is playing, how many courts
# there are, and how players get matched.

session:
  name: "Tuesday Night Doubles"

  # Mode decides how empty courts are filled:
  #   competitive_variety  best balanced match from the waitlist, every court
  #   round_robin          pre-built rotation, first free entry plays next
  #   strict_round_robin   pre-built rotation, strictly first in first out
  #   team_variety         locked teams only, rotating opponents
  #   continuous_wave      first round reviewed, then rolling court swaps
  #   king_of_court        winners hold the court for up to 3 wins
  mode: competitive_variety
  courts: 3
  team_size: 2          # 2 = doubles, 1 = singles

# Players. Skill is an optional external rating on a 1.0-5.5 scale; it
# seeds the ranking until the player has a couple of games behind them.
players:
  - {id: ana, name: Ana, skill: 4.0}
  - {id: ben, name: Ben, skill: 3.5}
  - {id: cal, name: Cal, skill: 3.0}
  - {id: dee, name: Dee, skill: 3.5}
  - {id: eli, name: Eli}
  - {id: fay, name: Fay, skill: 4.5}
  - {id: gus, name: Gus}
  - {id: hal, name: Hal, skill: 3.0}
  - {id: ivy, name: Ivy}
  - {id: jon, name: Jon, skill: 2.5}
  - {id: kim, name: Kim}
  - {id: lou, name: Lou, skill: 3.0}

# Locked teams always play together and never against each other.
locked_teams:
  - [ana, ben]

# Banned pairs never play on the same team. They may still be opponents.
banned_pairs:
  - [cal, dee]

ranking:
  # Share of the roster, by rank, a player may be matched with (0-1).
  # With 12 or more ranked players a top-half/bottom-half split applies.
  roaming_percent: 0.5
  # Games before a player's own record replaces their seeded skill.
  provisional_games: 2

# Minimum games between playing with (or against) the same person again.
# The gap shrinks as the session goes on.
repetition:
  partner_gap: 3
  opponent_gap: 2

adaptive:
  disabled: false
  weight_override: 0    # 0 = follow the session phase

search:
  candidate_cap: 10     # players considered per court, 8-12

wait:
  difference_threshold: 5m

queue:
  length: 0             # round robin queue length, 0 = one full rotation
  min_waitlist: 2       # continuous_wave warns below this many waiting
`
